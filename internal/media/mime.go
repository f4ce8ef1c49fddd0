package media

import "strings"

// Class groups extensions by what the editor can do with them.
type Class string

const (
	ClassImage   Class = "image"
	ClassVideo   Class = "video"
	ClassAudio   Class = "audio"
	ClassUnknown Class = ""
)

type mimeEntry struct {
	contentType string
	class       Class
}

var mimeTypes = map[string]mimeEntry{
	".jpg":  {"image/jpeg", ClassImage},
	".jpeg": {"image/jpeg", ClassImage},
	".png":  {"image/png", ClassImage},
	".gif":  {"image/gif", ClassImage},
	".webp": {"image/webp", ClassImage},
	".bmp":  {"image/bmp", ClassImage},
	".mp4":  {"video/mp4", ClassVideo},
	".webm": {"video/webm", ClassVideo},
	".mov":  {"video/quicktime", ClassVideo},
	".mp3":  {"audio/mpeg", ClassAudio},
	".wav":  {"audio/wav", ClassAudio},
	".m4a":  {"audio/mp4", ClassAudio},
}

// ContentType maps an extension or filename to a MIME type, falling back to
// application/octet-stream.
func ContentType(name string) string {
	if e, ok := mimeTypes[extOf(name)]; ok {
		return e.contentType
	}
	return "application/octet-stream"
}

// ClassOf reports the media class of an extension or filename.
func ClassOf(name string) Class {
	return mimeTypes[extOf(name)].class
}

func extOf(name string) string {
	name = strings.ToLower(name)
	if i := strings.LastIndexByte(name, '.'); i >= 0 {
		return name[i:]
	}
	return "." + name
}
