package utils

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"
)

// NewTxRef mints a transaction reference for one payment attempt. The
// unix-millisecond prefix keeps references sortable; the 32-bit random
// suffix keeps the collision probability negligible under concurrent
// initialization. The unique index on payments.tx_ref is the final
// backstop either way.
func NewTxRef() (string, error) {
	buf := make([]byte, 4)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return fmt.Sprintf("DON-%d-%s", time.Now().UnixMilli(), hex.EncodeToString(buf)), nil
}
