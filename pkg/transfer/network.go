package transfer

import "fmt"

// Network identifies one of the supported chains. The set is sealed;
// dispatch over it is always an exhaustive match.
type Network string

const (
	NetworkEVM    Network = "evm"
	NetworkSolana Network = "solana"
)

// ParseNetwork maps a request string onto the sealed network set.
func ParseNetwork(s string) (Network, error) {
	switch Network(s) {
	case NetworkEVM:
		return NetworkEVM, nil
	case NetworkSolana:
		return NetworkSolana, nil
	default:
		return "", fmt.Errorf("unsupported network %q", s)
	}
}
