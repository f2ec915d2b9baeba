//go:build !linux && !windows

package platform

func newAdapter(opts Options) (Adapter, error) {
	return nil, ErrUnsupported
}
