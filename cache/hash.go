package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"

	"previewer/internal/timeutil"
	"previewer/models"
)

// UnsavedProjectSentinel stands in for the project identity of a
// not-yet-saved project, so cache reuse still works across sessions once
// per-chunk content hashing takes over.
const UnsavedProjectSentinel = "unsaved-project"

// HashProjectIdentity digests a stable project identity (a persisted project
// path, or the unsaved sentinel).
func HashProjectIdentity(identity string) string {
	if strings.TrimSpace(identity) == "" {
		identity = UnsavedProjectSentinel
	}
	sum := sha256.Sum256([]byte(identity))
	return hex.EncodeToString(sum[:])
}

// ComputeChunkHash digests every attribute that can change the rendered
// bytes of the chunk window [start, end): all clips overlapping the window
// across all tracks (video and audio), their trims and positions, their
// effect payloads, the resolved media path (existing proxy preferred), and
// the track visibility/mute flags.
//
// Float fields go through fixed 3-decimal formatting so sub-millisecond
// floating-point noise never flips a hash.
func ComputeChunkHash(tl *models.Timeline, start, end float64) string {
	h := sha256.New()

	fmt.Fprintf(h, "window|%s|%s\n", timeutil.Fixed3(start), timeutil.Fixed3(end))

	for ti := range tl.Tracks {
		track := &tl.Tracks[ti]
		for ci := range track.Clips {
			clip := &track.Clips[ci]
			if !clip.Overlaps(start, end) {
				continue
			}

			resolvedPath := ""
			if media := tl.MediaByID(clip.MediaID); media != nil {
				resolvedPath = media.ResolvePath()
			}

			fmt.Fprintf(h, "track|%d|%s|%t|%t\n", ti, track.Type, track.Visible, track.Muted)
			fmt.Fprintf(h, "clip|%s|%s|%s|%s|%s|%t|%s\n",
				clip.MediaID,
				timeutil.Fixed3(clip.TimelineStart),
				timeutil.Fixed3(clip.Duration),
				timeutil.Fixed3(clip.MediaIn),
				timeutil.Fixed3(clip.MediaOut),
				clip.Enabled,
				resolvedPath,
			)
			for _, effect := range clip.Effects {
				fmt.Fprintf(h, "effect|%s|%s\n", effect.Name, effect.Payload)
			}
		}
	}

	return hex.EncodeToString(h.Sum(nil))
}
