package storage

import (
	"testing"

	"github.com/stretchr/testify/suite"
)

func TestMemoryStore(t *testing.T) {
	suite.Run(t, &jobStoreSuite{newStore: func() JobStore { return NewMemoryStore() }})
}
