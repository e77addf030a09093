// Package scaffold generates new Move projects from embedded templates. It
// powers the "ika init" command: Move.toml, a counter module with its unit
// test, a TypeScript end-to-end test, and the npm and TypeScript config the
// end-to-end test needs.
//
// Files ending in .tmpl are rendered with text/template; every other file is
// copied verbatim.
package scaffold
