// Package repo serves git-derived data for projects through the
// fingerprint cache and runs mutating git operations so that the cache is
// invalidated before anyone is told about the change.
//
// [Reader] answers status, tree, patch and log queries. Each query computes
// the working tree fingerprint; a hit is served from the cache, a miss is
// fetched live and written back on a best-effort basis. When the
// fingerprint cannot be computed the cache is bypassed.
//
// [RunMutation] wraps every mutating operation:
//
//  1. resolve the project's working directory, failing with
//     [ErrProjectNotFound] before anything else happens
//  2. run the action
//  3. on success, delete every cache entry of the project, then publish
//     [events.RepoUpdated]
//  4. optionally check for merge conflicts and publish
//     [events.ConflictDetected]
//  5. on failure, publish [events.RepoError] and return the error unchanged
package repo
