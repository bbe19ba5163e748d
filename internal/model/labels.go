package model

import (
	_ "embed"
	"strings"
)

//go:embed labels/imagenet.txt
var imageNetLabelsFile string

// ImageNetLabels is the 1000-class ILSVRC-2012 label table, indexed by class.
var ImageNetLabels = parseLabels(imageNetLabelsFile)

func parseLabels(content string) []string {
	lines := strings.Split(strings.TrimRight(content, "\n"), "\n")
	labels := make([]string, 0, len(lines))
	for _, line := range lines {
		labels = append(labels, strings.TrimSpace(line))
	}
	return labels
}
