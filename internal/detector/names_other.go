//go:build !windows

package detector

// DefaultCrashReporterNames is empty: crashes on this platform do not leave a
// blocking dialog behind.
func DefaultCrashReporterNames() []string { return nil }
