// Package viz renders solved operating maps in the terminal.
//
// Line plots of the torque envelope, peak efficiency and thermal limits use
// asciigraph. Heat maps of any per cell quantity are drawn with lipgloss
// colored blocks, and [Canvas] draws the feasible region outline in braille
// dots at twice the horizontal and four times the vertical cell resolution.
//
// Infeasible cells are never colored; they render as a muted dot.
package viz
