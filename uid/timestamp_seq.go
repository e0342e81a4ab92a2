package uid

import (
	"context"
	"time"
)

// TimestampSeqGenerator 高52位毫秒时间戳 + 低12位序列号，单进程内单调递增
type TimestampSeqGenerator struct {
	state int64
}

func NewTimestampSeqGenerator() *TimestampSeqGenerator {
	return &TimestampSeqGenerator{state: time.Now().UnixMilli() << sequenceBits}
}

func (g *TimestampSeqGenerator) Generate(ctx context.Context) (int64, error) {
	ts, seq := advance(&g.state, func() int64 { return time.Now().UnixMilli() })
	return (ts << sequenceBits) | seq, nil
}
