package domain

// EncoderProfile codec settings shared by every rendition
type EncoderProfile struct {
	VideoCodec string
	AudioCodec string
	Container  string
}

// H264Profile the only profile the pipeline encodes with
var H264Profile = EncoderProfile{
	VideoCodec: "libx264",
	AudioCodec: "aac",
	Container:  "mp4",
}

// RenditionSpec one rung of the ladder
type RenditionSpec struct {
	Label   string
	Width   int
	Height  int
	Profile EncoderProfile
}

// Thumbnail geometry and format
const (
	ThumbnailWidth  = 320
	ThumbnailHeight = 240
	ThumbnailFormat = "png"
)

// Rendition labels
const (
	Label720p = "720p"
	Label480p = "480p"
	Label360p = "360p"
)

// Ladder returns the renditions produced for every upload, highest first.
// The slice is a fresh copy on each call.
func Ladder() []RenditionSpec {
	return []RenditionSpec{
		{Label: Label720p, Width: 1280, Height: 720, Profile: H264Profile},
		{Label: Label480p, Width: 854, Height: 480, Profile: H264Profile},
		{Label: Label360p, Width: 640, Height: 360, Profile: H264Profile},
	}
}
