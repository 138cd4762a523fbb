// Provides platform-appropriate paths for the caisson CLI.
//
// All paths follow XDG conventions on Linux and platform-native conventions
// on macOS. The name "caisson" is used as the subdirectory under each base
// path.
package paths
