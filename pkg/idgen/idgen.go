package idgen

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sony/sonyflake"

	"github.com/evermeet/chatsync/pkg/constant"
)

// TempIdGenerator generates temporary message ids. Ids issued by one
// generator are strictly increasing, which is what lets the message cache
// keep submission order while remote writes complete out of order.
type TempIdGenerator interface {
	// NextTempId generates a new temporary message id
	NextTempId() (string, error)
}

// SonyflakeGenerator implements TempIdGenerator using sonyflake
type SonyflakeGenerator struct {
	sf *sonyflake.Sonyflake
}

// NewSonyflakeGenerator creates a new SonyflakeGenerator
func NewSonyflakeGenerator(machineID uint16) (*SonyflakeGenerator, error) {
	st := sonyflake.Settings{
		StartTime: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		MachineID: func() (uint16, error) {
			return machineID, nil
		},
	}

	sf, err := sonyflake.New(st)
	if err != nil {
		return nil, fmt.Errorf("failed to create sonyflake: %w", err)
	}

	return &SonyflakeGenerator{sf: sf}, nil
}

// NextTempId generates a new temporary message id
func (g *SonyflakeGenerator) NextTempId() (string, error) {
	id, err := g.sf.NextID()
	if err != nil {
		return "", fmt.Errorf("failed to generate id: %w", err)
	}
	return fmt.Sprintf("%s%d", constant.TempIdPrefix, id), nil
}

// NewOperationId returns a fresh id used to correlate one remote call
// across logs and wire frames.
func NewOperationId() string {
	return uuid.NewString()
}

// Global default generator
var (
	defaultGenerator TempIdGenerator
	once             sync.Once
	initErr          error
)

// SetDefaultGenerator sets the default temp id generator
func SetDefaultGenerator(gen TempIdGenerator) {
	defaultGenerator = gen
}

// GetDefaultGenerator returns the default temp id generator.
// If not set, creates a SonyflakeGenerator with machineID 1
func GetDefaultGenerator() (TempIdGenerator, error) {
	once.Do(func() {
		if defaultGenerator == nil {
			defaultGenerator, initErr = NewSonyflakeGenerator(1)
		}
	})
	if initErr != nil {
		return nil, initErr
	}
	return defaultGenerator, nil
}

// NextTempId generates a new temp id using the default generator
func NextTempId() (string, error) {
	gen, err := GetDefaultGenerator()
	if err != nil {
		return "", err
	}
	return gen.NextTempId()
}
