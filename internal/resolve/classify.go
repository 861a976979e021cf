package resolve

import "strings"

// Kind is the classification of a raw specifier.
type Kind int

const (
	Local Kind = iota
	Builtin
	ThirdParty
)

func (k Kind) String() string {
	switch k {
	case Local:
		return "local"
	case Builtin:
		return "builtin"
	case ThirdParty:
		return "third-party"
	default:
		return "unknown"
	}
}

// Classification is the result of Classify. Name is the built-in module name
// or the package name; it is empty for local specifiers.
type Classification struct {
	Kind Kind
	Name string
}

// Classify sorts a specifier into local, built-in or third-party without
// touching the file system.
func Classify(spec string) Classification {
	if IsLocal(spec) {
		return Classification{Kind: Local}
	}
	if name, ok := builtinName(spec); ok {
		return Classification{Kind: Builtin, Name: name}
	}
	return Classification{Kind: ThirdParty, Name: PackageName(spec)}
}

// IsLocal reports whether spec starts with a relative or absolute path marker.
func IsLocal(spec string) bool {
	switch spec {
	case ".", "..":
		return true
	}
	return strings.HasPrefix(spec, "./") ||
		strings.HasPrefix(spec, "../") ||
		strings.HasPrefix(spec, "/")
}

// PackageName returns the package part of a bare specifier: the first path
// segment, or the first two for scoped packages ("@scope/name/sub" gives
// "@scope/name").
func PackageName(spec string) string {
	parts := strings.SplitN(spec, "/", 3)
	if strings.HasPrefix(spec, "@") && len(parts) >= 2 {
		return parts[0] + "/" + parts[1]
	}
	return parts[0]
}

// splitPackage splits a bare specifier into its package name and a "./sub"
// subpath, which is "." when the specifier names the package itself.
func splitPackage(spec string) (pkg, subpath string) {
	pkg = PackageName(spec)
	rest := strings.TrimPrefix(strings.TrimPrefix(spec, pkg), "/")
	if rest == "" {
		return pkg, "."
	}
	return pkg, "./" + rest
}
