package puzzle

import (
	"path"
	"strings"

	"github.com/MrMysteryCode/Friendle/internal/core"
)

var imageExts = map[string]struct{}{
	".png":  {},
	".jpg":  {},
	".jpeg": {},
	".gif":  {},
	".webp": {},
	".bmp":  {},
}

// IsImage recognizes an attachment as an image by file extension or by the
// declared content type.
func IsImage(att core.Attachment) bool {
	if strings.HasPrefix(strings.ToLower(att.ContentType), "image/") {
		return true
	}
	name := att.Filename
	if name == "" {
		name = att.URL
	}
	ext := strings.ToLower(path.Ext(strings.SplitN(name, "?", 2)[0]))
	_, ok := imageExts[ext]
	return ok
}

// HasImage reports whether a message carries at least one image attachment.
func HasImage(msg core.Message) bool {
	for _, att := range msg.Attachments {
		if IsImage(att) {
			return true
		}
	}
	return false
}

// FilenameKeywords derives lower-cased hint tokens from the filename: split
// on '.', '_' and '-', keeping alphabetic tokens of length two or more.
func FilenameKeywords(filename string) []string {
	parts := strings.FieldsFunc(strings.ToLower(filename), func(r rune) bool {
		return r == '.' || r == '_' || r == '-'
	})
	var out []string
	for _, part := range parts {
		if len(part) < 2 {
			continue
		}
		alpha := true
		for _, r := range part {
			if r < 'a' || r > 'z' {
				alpha = false
				break
			}
		}
		if alpha {
			out = append(out, part)
		}
	}
	return out
}

// BuildMedia picks a random message carrying an image attachment and emits
// the attachment plus filename-derived keywords. Nil when none exists.
func BuildMedia(sample *core.Sample, src Source) *core.MediaPuzzle {
	if sample.Empty() {
		return nil
	}

	var candidates []core.Message
	for _, msg := range sample.Messages {
		if HasImage(msg) {
			candidates = append(candidates, msg)
		}
	}

	chosen, ok := PickUniform(src, candidates)
	if !ok {
		return nil
	}

	var image core.Attachment
	for _, att := range chosen.Attachments {
		if IsImage(att) {
			image = att
			break
		}
	}

	return &core.MediaPuzzle{
		PuzzleBase: core.PuzzleBase{
			Game:           core.GameMedia,
			Date:           sample.Date,
			SolutionUserID: chosen.AuthorID,
		},
		ImageURL: image.URL,
		Filename: image.Filename,
		Size:     image.Size,
		Keywords: FilenameKeywords(image.Filename),
	}
}
