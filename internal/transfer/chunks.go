package transfer

// Chunk is one bounded copy statement. A zero Limit means unbounded.
type Chunk struct {
	Index  int
	Offset int64
	Limit  int64
}

// PlanChunks splits total eligible rows into batches. When total fits in
// one batch, or batch is not positive, a single unbounded chunk is returned.
func PlanChunks(total int64, batch int) []Chunk {
	if batch <= 0 || total <= int64(batch) {
		return []Chunk{{Index: 0}}
	}
	size := int64(batch)
	var out []Chunk
	for off := int64(0); off < total; off += size {
		limit := size
		if rest := total - off; rest < size {
			limit = rest
		}
		out = append(out, Chunk{Index: len(out), Offset: off, Limit: limit})
	}
	return out
}
