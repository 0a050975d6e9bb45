// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package collection

import (
	"slices"

	"blockdesk/internal/models"
)

// SetCategoryOrder fixes the display order of scopes. Scopes not listed
// follow in first-seen order.
func (c *Collection) SetCategoryOrder(order []string) {
	c.categoryOrder = slices.Clone(order)
	c.sort()
}

// Categories returns every scope in display order. Listed categories with
// no items are included.
func (c *Collection) Categories() []string {
	out := slices.Clone(c.categoryOrder)
	for _, it := range c.items {
		if !slices.Contains(out, it.ParentID) {
			out = append(out, it.ParentID)
		}
	}
	return out
}

// SwapCategories exchanges the labels of every item in x and y. Each item
// keeps its position, so rank k of x becomes rank k of y and vice versa.
// The display order of the two labels does not change.
func (c *Collection) SwapCategories(x, y string) ([]models.Item, error) {
	cats := c.Categories()
	if !slices.Contains(cats, x) || !slices.Contains(cats, y) {
		return nil, ErrCategoryNotFound
	}
	if x == y {
		return nil, nil
	}
	var changed []models.Item
	for i := range c.items {
		switch c.items[i].ParentID {
		case x:
			c.items[i].ParentID = y
		case y:
			c.items[i].ParentID = x
		default:
			continue
		}
		changed = append(changed, c.items[i])
	}
	c.sort()
	return changed, nil
}

// MoveCategoryUp moves a category one slot earlier in the display order and
// returns the new order. Moving the first category is a no-op.
func (c *Collection) MoveCategoryUp(name string) ([]string, error) {
	return c.shiftCategory(name, -1)
}

// MoveCategoryDown moves a category one slot later in the display order and
// returns the new order. Moving the last category is a no-op.
func (c *Collection) MoveCategoryDown(name string) ([]string, error) {
	return c.shiftCategory(name, +1)
}

func (c *Collection) shiftCategory(name string, delta int) ([]string, error) {
	order := c.Categories()
	i := slices.Index(order, name)
	if i < 0 {
		return nil, ErrCategoryNotFound
	}
	j := i + delta
	if j < 0 || j >= len(order) {
		return order, nil
	}
	order[i], order[j] = order[j], order[i]
	c.SetCategoryOrder(order)
	return order, nil
}

// scopeRanks assigns each scope its display rank: listed categories first,
// then unlisted scopes in first-seen order.
func (c *Collection) scopeRanks() map[string]int {
	rank := make(map[string]int, len(c.categoryOrder))
	for i, name := range c.categoryOrder {
		if _, ok := rank[name]; !ok {
			rank[name] = i
		}
	}
	next := len(c.categoryOrder)
	for _, it := range c.items {
		if _, ok := rank[it.ParentID]; !ok {
			rank[it.ParentID] = next
			next++
		}
	}
	return rank
}
