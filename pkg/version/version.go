package version

// Version is the current fold version.
// This is a var (not const) so release builds can override it:
//
//	go build -ldflags "-X github.com/vanderheijden86/foldtree/pkg/version.Version=v1.2.3"
var Version = "v0.1.0"
