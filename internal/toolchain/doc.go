// Package toolchain locates the external programs ika drives (sui, npm, git)
// and checks their versions against configured minimums.
package toolchain
