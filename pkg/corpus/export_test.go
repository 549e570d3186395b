package corpus

// MemoLen returns the number of memoised decompositions.
func (c *Corpus) MemoLen() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.memo)
}
