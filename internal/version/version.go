// Package version carries the build metadata of the weatherproxy binary.
// The variables below are stamped with -ldflags at build time, e.g.
//
//	go build -ldflags "-X weatherproxy/internal/version.Version=v1.2.0 \
//	  -X weatherproxy/internal/version.GitCommit=$(git rev-parse --short HEAD) \
//	  -X weatherproxy/internal/version.BuildDate=$(date -u +%Y-%m-%dT%H:%M:%SZ)"
package version

import (
	"fmt"
	"os"
	"sync"

	"github.com/google/uuid"
)

var (
	Version   = "dev"
	BuildDate = "unknown"
	GitCommit = "unknown"
)

// Info is the build metadata plus the identity of this process. It is
// attached to every log line and to the telemetry resource.
type Info struct {
	Version    string `json:"version"`
	GitCommit  string `json:"git_commit"`
	BuildDate  string `json:"build_date"`
	InstanceID string `json:"instance_id"`
	Hostname   string `json:"hostname"`
}

var (
	once sync.Once
	info Info
)

// GetInfo returns the process Info. The instance ID is generated on the
// first call and stays stable for the lifetime of the process.
func GetInfo() Info {
	once.Do(func() {
		host, err := os.Hostname()
		if err != nil {
			host = "unknown"
		}
		info = Info{
			Version:    Version,
			GitCommit:  GitCommit,
			BuildDate:  BuildDate,
			InstanceID: uuid.NewString(),
			Hostname:   host,
		}
	})
	return info
}

func (i Info) String() string {
	return fmt.Sprintf("weatherproxy %s (commit %s, built %s)", i.Version, i.GitCommit, i.BuildDate)
}
