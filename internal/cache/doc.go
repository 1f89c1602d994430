// Package cache stores git-derived data keyed by working tree fingerprint.
//
// Entries live in an embedded BadgerDB under ~/.gitagen/cache and are grouped
// in three families, each scoped by project:
//
//	repo/<project>/<ignored 0|1>/<fingerprint>          tree and status payloads
//	patch/<project>/<scope>/<fingerprint>/<file>        single file patches
//	log/<project>                                       default commit log page
//
// A fingerprint captures HEAD, index and HEAD mtimes and a status hash, so a
// stale entry is simply never looked up again. Mutations drop every entry of
// the project with [Store.DeleteAllForProject]; old rows are reclaimed by the
// [Sweeper].
//
// Values are wrapped in a JSON envelope:
//
//	{"v":1,"at":1718000000000,"data":{...}}
//
// where "at" is the write time in unix milliseconds and drives retention.
//
// Reads never fail: a store or decode error is a miss. Writes return a
// [WriteResult] that call sites discard; failures are logged here.
package cache
