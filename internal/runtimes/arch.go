package runtimes

import "runtime"

// DefaultArch is the architecture tag used when the host's is unrecognized.
const DefaultArch = "x64"

// HostArch maps the running processor architecture to an inventory tag.
func HostArch() string {
	return archTag(runtime.GOARCH)
}

// archTag normalizes a GOARCH value to the fixed inventory tag set.
func archTag(goarch string) string {
	switch goarch {
	case "amd64":
		return "x64"
	case "386":
		return "x86"
	case "arm64":
		return "arm64"
	case "arm":
		return "arm"
	default:
		return DefaultArch
	}
}
