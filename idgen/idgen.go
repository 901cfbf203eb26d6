package idgen

import (
	"errors"
	"fmt"
	"hash/fnv"
	"os"
	"strconv"

	"github.com/fundwit/go-commons/types"
	"github.com/sony/sonyflake"
)

const EnvMachineID = "MACHINE_ID"

// NewWorker builds a sonyflake worker identified by the lower bits of the private IPv4 address.
// Hosts without one fall back to MACHINE_ID, then to a hash of the host name.
func NewWorker() *sonyflake.Sonyflake {
	if worker := sonyflake.NewSonyflake(sonyflake.Settings{}); worker != nil {
		return worker
	}
	worker := sonyflake.NewSonyflake(sonyflake.Settings{MachineID: FallbackMachineID})
	if worker == nil {
		_, err := FallbackMachineID()
		panic(fmt.Errorf("no sonyflake machine id available: %w", err))
	}
	return worker
}

func FallbackMachineID() (uint16, error) {
	if value := os.Getenv(EnvMachineID); value != "" {
		id, err := strconv.ParseUint(value, 10, 16)
		if err != nil {
			return 0, fmt.Errorf("invalid %s '%s': %w", EnvMachineID, value, err)
		}
		return uint16(id), nil
	}
	host, err := os.Hostname()
	if err != nil {
		return 0, err
	}
	if host == "" {
		return 0, errors.New("empty host name")
	}
	h := fnv.New32a()
	_, _ = h.Write([]byte(host))
	sum := h.Sum32()
	return uint16(sum ^ sum>>16), nil
}

func NextID(idWorker *sonyflake.Sonyflake) types.ID {
	id, err := idWorker.NextID()
	if err != nil {
		panic(err)
	}
	return types.ID(id)
}
