package compute

// VersionString is the git describe version set at build time
var VersionString = "?"

// RevisionString is the git revision set at build time
var RevisionString = "?"

// GeneratedString is the build date set at build time
var GeneratedString = "?"
