package main

import (
	"fmt"
	"strconv"
	"strings"
)

// sizeList is a flag.Value holding the record counts of the benchmark rounds.
type sizeList []int

func (s *sizeList) String() string {
	parts := make([]string, 0, len(*s))
	for _, n := range *s {
		parts = append(parts, strconv.Itoa(n))
	}
	return strings.Join(parts, ",")
}

func (s *sizeList) Set(value string) error {
	var sizes []int
	for _, part := range strings.Split(value, ",") {
		n, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil || n <= 0 {
			return fmt.Errorf("invalid size %q", part)
		}
		sizes = append(sizes, n)
	}
	*s = sizes
	return nil
}
