// Package charts renders building analyses as PNG images with gonum/plot.
package charts
