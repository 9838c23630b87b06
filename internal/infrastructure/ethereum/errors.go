package ethereum

import "fmt"

// RPCError wraps a failed chain RPC call. It is transient: callers at the
// batch boundary convert it into a per-item skip rather than a batch failure.
type RPCError struct {
	Chain string
	Op    string
	Err   error
}

func (e *RPCError) Error() string {
	return fmt.Sprintf("rpc %s on %s: %v", e.Op, e.Chain, e.Err)
}

func (e *RPCError) Unwrap() error {
	return e.Err
}
