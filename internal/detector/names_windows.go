//go:build windows

package detector

// DefaultCrashReporterNames is the Windows Error Reporting dialog.
func DefaultCrashReporterNames() []string { return []string{"WerFault"} }
