package source

import (
	"fmt"

	"eventflow/internal/constants"
)

func commitPolicy(policy string) (string, error) {
	switch policy {
	case "":
		return constants.CommitOnDraw, nil
	case constants.CommitOnDraw, constants.CommitOnCompletion:
		return policy, nil
	default:
		return "", fmt.Errorf("unknown commit policy %q (want %q or %q)",
			policy, constants.CommitOnDraw, constants.CommitOnCompletion)
	}
}
