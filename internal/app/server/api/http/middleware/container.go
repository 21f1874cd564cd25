package middleware

import (
	"github.com/danielgtaylor/huma/v2"
)

// Func мидлварь операции huma
type Func = func(ctx huma.Context, next func(huma.Context))

// Chain упорядоченный набор мидлварей. With не меняет исходную цепочку,
// поэтому общий префикс можно переиспользовать для разных групп операций.
type Chain struct {
	list huma.Middlewares
}

func NewChain(mws ...Func) *Chain {
	c := &Chain{list: make(huma.Middlewares, 0, len(mws))}
	for _, mw := range mws {
		c.list = append(c.list, mw)
	}
	return c
}

// With возвращает новую цепочку с мидлварями mws в конце
func (c *Chain) With(mws ...Func) *Chain {
	next := &Chain{list: make(huma.Middlewares, 0, len(c.list)+len(mws))}
	next.list = append(next.list, c.list...)
	for _, mw := range mws {
		next.list = append(next.list, mw)
	}
	return next
}

// Middlewares копия цепочки для huma.Operation
func (c *Chain) Middlewares() huma.Middlewares {
	out := make(huma.Middlewares, len(c.list))
	copy(out, c.list)
	return out
}
