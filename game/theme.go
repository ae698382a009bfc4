/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package game

import "math/rand/v2"

const (
	minValue = 1
	maxValue = 100
)

// Theme describes the scale players map their private value onto.
type Theme struct {
	Title  string `json:"title"`
	Low    string `json:"low"`
	High   string `json:"high"`
	Custom bool   `json:"custom"`
}

var builtinThemes = []Theme{
	{Title: "Animals", Low: "Weakest", High: "Strongest"},
	{Title: "Foods", Low: "Least tasty", High: "Most tasty"},
	{Title: "Superpowers", Low: "Most useless", High: "Most useful"},
	{Title: "Movies", Low: "Worst", High: "Best"},
	{Title: "Places to live", Low: "Worst", High: "Best"},
	{Title: "Jobs", Low: "Most boring", High: "Most exciting"},
	{Title: "Things to bring to a desert island", Low: "Useless", High: "Essential"},
	{Title: "Celebrities", Low: "Least famous", High: "Most famous"},
	{Title: "Weather", Low: "Most unpleasant", High: "Most pleasant"},
	{Title: "Smells", Low: "Worst", High: "Best"},
	{Title: "Vehicles", Low: "Slowest", High: "Fastest"},
	{Title: "Household chores", Low: "Least annoying", High: "Most annoying"},
	{Title: "Pets", Low: "Easiest to care for", High: "Hardest to care for"},
	{Title: "Ways to spend a Saturday", Low: "Dullest", High: "Most fun"},
	{Title: "Fictional villains", Low: "Least scary", High: "Scariest"},
	{Title: "Drinks", Low: "Least refreshing", High: "Most refreshing"},
}

// drawTheme picks uniformly from the built-in pool, skipping prev when the
// pool has any alternative.
func drawTheme(rng *rand.Rand, prev *Theme) Theme {
	for {
		t := builtinThemes[rng.IntN(len(builtinThemes))]
		if prev == nil || prev.Custom || t != *prev || len(builtinThemes) == 1 {
			return t
		}
	}
}

// drawValues assigns each id a distinct value from [minValue, maxValue],
// sampled uniformly without replacement.
func drawValues(rng *rand.Rand, ids []string) map[string]int {
	pool := make([]int, maxValue-minValue+1)
	for i := range pool {
		pool[i] = minValue + i
	}

	rng.Shuffle(len(pool), func(i, j int) {
		pool[i], pool[j] = pool[j], pool[i]
	})

	values := make(map[string]int, len(ids))
	for i, id := range ids {
		values[id] = pool[i]
	}

	return values
}
