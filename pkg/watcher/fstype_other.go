//go:build !linux

package watcher

// DetectFilesystemType is only implemented on Linux; elsewhere fsnotify is
// trusted and FSTypeUnknown is returned.
func DetectFilesystemType(path string) FilesystemType {
	return FSTypeUnknown
}
