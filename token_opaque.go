package accounts

import (
	"fmt"
	"strings"
	"time"

	"github.com/goliatone/hashid/pkg/hashid"
	"github.com/google/uuid"
)

// OpaqueTokenLength is the length of tokens returned by IssueOpaqueToken
const OpaqueTokenLength = 32

// IssueOpaqueToken returns a one time token for confirmation and reset links.
// The seed is mixed with the current time and a random uuid before hashing.
func IssueOpaqueToken(seed string) (string, error) {
	entropy := fmt.Sprintf("%s:%d:%s", seed, time.Now().UnixNano(), uuid.NewString())

	id, err := hashid.NewUUID(entropy)
	if err != nil {
		return "", ServerError(err, "failed to issue opaque token")
	}

	// xor in a random v4 so the token does not depend only on the seed hash
	rnd := uuid.New()
	for i := range id {
		id[i] ^= rnd[i]
	}

	return strings.ReplaceAll(id.String(), "-", ""), nil
}
