/*
Package reconciler runs the FAT Reconciler: a single 60s-cadence loop
that forces a full directory rescan of each tracked FAT/exFAT volume on
its own configured interval, and once every 24h sweeps files belonging
to volumes that have been offline past their retention window.

NTFS volumes don't need this; their USN Monitor keeps the catalog
current incrementally. FAT and exFAT have no equivalent change journal,
so periodic re-walking is the only way to catch changes made while
BRindeX wasn't watching.
*/
package reconciler
