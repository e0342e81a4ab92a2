package uid

import (
	"context"
	"net"
	"sync/atomic"
	"time"
)

// SnowflakeOptions Snowflake 生成器配置
type SnowflakeOptions struct {
	// MachineID 机器ID，为空时取本机 IPv4 地址的低 16 位
	MachineID *int64 `cfg:"machineID"`
}

// SnowflakeGenerator 1位符号 + 41位时间戳 + 10位机器ID + 12位序列号
type SnowflakeGenerator struct {
	state     int64 // 高位时间戳，低12位序列号
	machineID int64
	epoch     int64
}

const (
	sequenceBits  = 12
	machineIDBits = 10

	maxSequence  = (1 << sequenceBits) - 1
	maxMachineID = (1 << machineIDBits) - 1

	machineIDShift = sequenceBits
	timestampShift = sequenceBits + machineIDBits
)

// 2020-01-01 00:00:00 UTC
var snowflakeEpoch = time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC).UnixMilli()

func NewSnowflakeGeneratorWithOptions(options *SnowflakeOptions) *SnowflakeGenerator {
	machineID := int64(-1)
	if options != nil && options.MachineID != nil {
		machineID = *options.MachineID
	}
	if machineID < 0 {
		machineID = machineIDFromIP()
	}

	return &SnowflakeGenerator{
		state:     (time.Now().UnixMilli() - snowflakeEpoch) << sequenceBits,
		machineID: machineID & maxMachineID,
		epoch:     snowflakeEpoch,
	}
}

func machineIDFromIP() int64 {
	addrs, err := net.InterfaceAddrs()
	if err != nil {
		return 0
	}
	for _, addr := range addrs {
		if ipnet, ok := addr.(*net.IPNet); ok && !ipnet.IP.IsLoopback() {
			if ipv4 := ipnet.IP.To4(); ipv4 != nil {
				return int64(ipv4[2])<<8 | int64(ipv4[3])
			}
		}
	}
	return 0
}

func (g *SnowflakeGenerator) Generate(ctx context.Context) (int64, error) {
	ts, seq := advance(&g.state, func() int64 { return time.Now().UnixMilli() - g.epoch })
	return (ts << timestampShift) | (g.machineID << machineIDShift) | seq, nil
}

// advance CAS 推进 时间戳+序列号 状态，同一毫秒内序列号溢出时自旋到下一毫秒
func advance(state *int64, now func() int64) (int64, int64) {
	for {
		old := atomic.LoadInt64(state)
		oldTs, oldSeq := old>>sequenceBits, old&maxSequence

		ts, seq := now(), int64(0)
		if ts <= oldTs {
			ts = oldTs
			seq = (oldSeq + 1) & maxSequence
			if seq == 0 {
				for ts <= oldTs {
					ts = now()
				}
			}
		}

		if atomic.CompareAndSwapInt64(state, old, (ts<<sequenceBits)|seq) {
			return ts, seq
		}
	}
}
