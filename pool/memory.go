// File: pool/memory.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package pool

// AllocMemory is a collaborator helper: it sizes both regions with GetSize and
// allocates them with AllocRegions. The returned release func frees them; the
// pool must not be used afterwards.
func AllocMemory(cfg *Config) (Memory, func() error, error) {
	if err := GetSize(cfg); err != nil {
		return Memory{}, nil, err
	}
	return AllocRegions(cfg.MetaDataMemSize, cfg.BufMemSize)
}
