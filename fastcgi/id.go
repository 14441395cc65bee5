package fastcgi

//idPool hands out request ids, id 0 is reserved for management records
type idPool struct {
	ids chan uint16
}

//Alloc blocks until an id is free
func (p *idPool) Alloc() uint16 {
	return <-p.ids
}

//Release gives id back to the pool without blocking the caller
func (p *idPool) Release(id uint16) {
	go func() {
		p.ids <- id
	}()
}

func newIDs(limit uint32) (p idPool) {
	if limit == 0 || limit > 65535 {
		limit = 65535
	}

	ids := make(chan uint16)

	go func(maxID uint16) {
		for i := uint16(1); i < maxID; i++ {
			ids <- i
		}

		ids <- maxID
	}(uint16(limit))

	p.ids = ids

	return
}
