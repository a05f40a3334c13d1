/*
Package service owns the process-wide startup/shutdown sequence: given
a config the caller has already loaded, create the data directory, open
the Catalog Store, and start every worker package
(orchestrator, usn, reconciler, watcher) in the documented order, then
reverse that order on shutdown. Shell is the only thing in the repo
allowed to close the shared shutdown channel.
*/
package service
