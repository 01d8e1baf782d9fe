package idgen

import (
	"hash/fnv"
	"os"

	"github.com/fundwit/go-commons/types"
	"github.com/sirupsen/logrus"
	"github.com/sony/sonyflake"
)

// NewWorker creates a sonyflake worker. Hosts without a private ip (containers, laptops)
// fall back to a machine id derived from the host name.
func NewWorker() *sonyflake.Sonyflake {
	w := sonyflake.NewSonyflake(sonyflake.Settings{})
	if w != nil {
		return w
	}
	logrus.Warn("sonyflake: no private ip address found, use host name based machine id")
	return sonyflake.NewSonyflake(sonyflake.Settings{MachineID: hostMachineID})
}

func NextID(idWorker *sonyflake.Sonyflake) types.ID {
	id, err := idWorker.NextID()
	if err != nil {
		panic(err)
	}
	return types.ID(id)
}

func hostMachineID() (uint16, error) {
	hostname, err := os.Hostname()
	if err != nil {
		hostname = "localhost"
	}
	h := fnv.New32a()
	_, _ = h.Write([]byte(hostname))
	return uint16(h.Sum32()), nil
}
