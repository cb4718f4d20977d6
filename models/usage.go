package models

const bytesPerGB = 1 << 30

// DefaultStorageLimit is the per-user allowance (5 GiB).
const DefaultStorageLimit int64 = 5 * bytesPerGB

type StorageUsage struct {
	UsedBytes  int64   `json:"used_bytes"`
	LimitBytes int64   `json:"limit_bytes"`
	Percentage int     `json:"percentage"`
	UsedGB     float64 `json:"used_gb"`
	LimitGB    float64 `json:"limit_gb"`
}

// BytesToGB converts bytes to GiB rounded to two decimals.
func BytesToGB(b int64) float64 {
	gb := float64(b) / bytesPerGB
	return float64(int64(gb*100+0.5)) / 100
}
