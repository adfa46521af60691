// Package factory provides a small generic registry used to build pluggable
// modules (metrics sinks, result stores) from configuration. A module is
// described by a type string and a map of raw settings; factories decode the
// settings into typed structs and return the concrete implementation.
//
//	reg := factory.NewRegistry[store.ResultStore]()
//	_ = reg.Register("sqlite", func(conf map[string]any) (store.ResultStore, error) {
//	    var c store.Config
//	    if err := factory.Decode(conf, &c); err != nil {
//	        return nil, err
//	    }
//	    return NewSQLiteStore(c.Path)
//	})
//	s, err := reg.Create(factory.ModuleConfig{Type: "sqlite", Conf: map[string]any{"path": "usdplan.db"}})
package factory
