package config

import "github.com/arslant84/vendori/internal/durability"

// Default values applied before the config file and environment.
const (
	DefaultLogLevel = "info"

	DefaultStorageMedium      = MediumFile
	DefaultStorageCompress    = false
	DefaultCorruptPolicy      = "reset"
	DefaultFilePath           = "vendors.db"
	DefaultKVDir              = "vendori-kv"
	DefaultKVKey              = durability.DefaultKVKey
	DefaultRemoteUploadPath   = durability.DefaultUploadPath
	DefaultRemoteSnapshotPath = durability.DefaultSnapshotPath
	DefaultRemoteTimeout      = durability.DefaultTimeout

	DefaultServerAddr           = ":8080"
	DefaultServerPublicDir      = "public"
	DefaultServerSnapshotFile   = "vendors.db"
	DefaultServerMaxUploadBytes = 64 << 20
)
