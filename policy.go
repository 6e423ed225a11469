package kvschema

import "context"

// trimList keeps the maxLen most recently pushed elements: the head window
// after LPUSH, the tail window after RPUSH. It runs after every bounded push,
// whether or not the bound was exceeded.
func (c *Client) trimList(ctx context.Context, ev Event, key string, pushedLen, maxLen int64, head bool) error {
	start, stop := -maxLen, int64(-1)
	if head {
		start, stop = 0, maxLen-1
	}
	ev.Op = "ltrim"
	if err := c.backend.LTrim(ctx, key, start, stop); err != nil {
		return c.fail(ev.with(err))
	}
	if excess := pushedLen - maxLen; excess > 0 {
		c.evicted(ev, excess)
	}
	return nil
}

// trimSet pops arbitrary members, one call each, until the set fits.
func (c *Client) trimSet(ctx context.Context, ev Event, key string, maxSize int64) error {
	ev.Op = "scard"
	card, err := c.backend.SCard(ctx, key)
	if err != nil {
		return c.fail(ev.with(err))
	}
	excess := card - maxSize
	if excess <= 0 {
		return nil
	}
	ev.Op = "spop"
	var evicted int64
	for range excess {
		_, found, err := c.backend.SPop(ctx, key)
		if err != nil {
			if evicted > 0 {
				c.evicted(ev, evicted)
			}
			return c.fail(ev.with(err))
		}
		if !found {
			break
		}
		evicted++
	}
	if evicted > 0 {
		c.evicted(ev, evicted)
	}
	return nil
}

// trimSortedSet removes the lowest-ranked members beyond maxSize in one
// ZREMRANGEBYRANK call.
func (c *Client) trimSortedSet(ctx context.Context, ev Event, key string, maxSize int64) error {
	ev.Op = "zcard"
	card, err := c.backend.ZCard(ctx, key)
	if err != nil {
		return c.fail(ev.with(err))
	}
	excess := card - maxSize
	if excess <= 0 {
		return nil
	}
	ev.Op = "zremrangebyrank"
	if err := c.backend.ZRemRangeByRank(ctx, key, 0, excess-1); err != nil {
		return c.fail(ev.with(err))
	}
	c.evicted(ev, excess)
	return nil
}

func (c *Client) evicted(ev Event, n int64) {
	c.evictions.Add(uint64(n))
	c.obs.Evicted(ev, n)
}
