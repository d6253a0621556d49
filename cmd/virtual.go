package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/swift-toolbox/snaptools/downsample"
	"github.com/swift-toolbox/snaptools/virtual"
)

// VirtualConfig runs the virtual mode, which combines the shards of a
// snapshot into one file of virtual datasets.
type VirtualConfig struct{ noConfig }

var _ Mode = &VirtualConfig{}

func (config *VirtualConfig) Usage() string { return "SHARD0 OUTPUT" }

// Run executes the virtual mode. SHARD0 may be either the first shard or
// the snapshot name without its ".N.hdf5" suffix.
func (config *VirtualConfig) Run(
	ctx context.Context, args []string, gConfig *GlobalConfig, e *Env,
) ([]string, error) {
	if err := checkArgs("virtual", args, 2); err != nil { return nil, err }
	shards, err := downsample.Shards(e.FS, strings.TrimSuffix(args[0], ".0.hdf5"))
	if err != nil { return nil, err }
	if err := virtual.Create(e.FS, shards, args[1], e.Log); err != nil {
		return nil, err
	}
	return []string{fmt.Sprintf("Combined %d files into %s", len(shards), args[1])}, nil
}
