/*
Package types defines the data model shared by every BRindeX package: the
catalog's two entities (Volume, File), the USN Monitor's change payload,
and the Volume Probe's raw enumeration result.

# Entities

Volume identifies one attached drive letter. Its stable key across
remounts is VolumeSerial, not DriveLetter — the same letter can be
reassigned to a different physical volume, which is exactly the swap case
VolumeState and the watcher's state machine exist to detect.

File identifies one filesystem entry by (VolumeID, FileRef). FileRef is
the MFT record number on NTFS or a synthetic counter minted during a
directory walk on FAT; it is unique only within its own volume, and the
same value routinely appears on other volumes.

# State

VolumeState is a tagged union in everything but name: Kind selects the
variant, and Since is only populated when Kind is VolumeOffline. Go has
no sum types, so this is the idiomatic stand-in — see pkg/watcher for the
transition table that mutates it.
*/
package types
