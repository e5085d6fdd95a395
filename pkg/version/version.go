package version

// Version is the current pdfspeak release.
const Version = "v0.1.0"
