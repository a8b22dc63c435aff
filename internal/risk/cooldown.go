package risk

// Cooldown enforces a minimum number of bars between a close and the next entry.
type Cooldown struct {
	Bars           int   `json:"cooldown_bars"`
	LastCloseBar   int64 `json:"last_close_bar"`
	BarsSinceClose int64 `json:"bars_since_close"`
	InCooldown     bool  `json:"in_cooldown"`
	closed         bool
}

func NewCooldown(bars int) Cooldown {
	if bars < 0 {
		bars = 0
	}
	return Cooldown{Bars: bars}
}

// Update is called once per bar tick.
func (c *Cooldown) Update(currentBar int64) {
	if !c.closed {
		c.InCooldown = false
		return
	}
	c.BarsSinceClose = currentBar - c.LastCloseBar
	c.InCooldown = c.BarsSinceClose < int64(c.Bars)
}

func (c *Cooldown) RecordClose(bar int64) {
	c.closed = true
	c.LastCloseBar = bar
	c.BarsSinceClose = 0
	c.InCooldown = true
}

func (c Cooldown) HasClosed() bool { return c.closed }
