package common

import (
	"os"
	"time"

	"github.com/fundwit/go-commons/types"
	"github.com/sony/sonyflake"
)

const DefaultServiceName = "bizflow"

func GetServiceName() string {
	if name := os.Getenv("SERVICE_NAME"); name != "" {
		return name
	}
	return DefaultServiceName
}

func GetServiceInstance() string {
	if instance := os.Getenv("SERVICE_INSTANCE"); instance != "" {
		return instance
	}
	hostname, err := os.Hostname()
	if err != nil {
		return "unknown"
	}
	return hostname
}

// NewIdWorker falls back to a pid derived machine id when no private address is available,
// sonyflake.NewSonyflake returns nil in that case.
func NewIdWorker() *sonyflake.Sonyflake {
	if w := sonyflake.NewSonyflake(sonyflake.Settings{}); w != nil {
		return w
	}
	return sonyflake.NewSonyflake(sonyflake.Settings{
		StartTime: time.Date(2014, 9, 1, 0, 0, 0, 0, time.UTC),
		MachineID: func() (uint16, error) {
			return uint16(os.Getpid()), nil
		},
	})
}

func NextId(idWorker *sonyflake.Sonyflake) types.ID {
	id, err := idWorker.NextID()
	if err != nil {
		panic(err)
	}
	return types.ID(id)
}

// NowUTC truncates to microseconds, the precision of DATETIME(6) columns.
func NowUTC() time.Time {
	return time.Now().UTC().Truncate(time.Microsecond)
}
