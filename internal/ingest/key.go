package ingest

// ObjectKey is the storage key for a video of the given aspect class.
func ObjectKey(aspect, videoID string) string {
	return aspect + "/" + videoID + ".mp4"
}
