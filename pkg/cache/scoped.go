package cache

// ScopedKeyer prefixes every key of an inner Keyer. The preview server uses
// it to keep its entries apart from those written by the CLI when both share
// one Redis instance.
//
//	k := cache.NewScopedKeyer(nil, "serve:")
type ScopedKeyer struct {
	inner  Keyer
	prefix string
}

// NewScopedKeyer returns a Keyer that prepends prefix. A nil inner uses
// DefaultKeyer.
func NewScopedKeyer(inner Keyer, prefix string) Keyer {
	if inner == nil {
		inner = NewDefaultKeyer()
	}
	return &ScopedKeyer{inner: inner, prefix: prefix}
}

func (k *ScopedKeyer) LayoutKey(recordsHash string, opts LayoutKeyOpts) string {
	return k.prefix + k.inner.LayoutKey(recordsHash, opts)
}

func (k *ScopedKeyer) ImageKey(url string, bucket int) string {
	return k.prefix + k.inner.ImageKey(url, bucket)
}
