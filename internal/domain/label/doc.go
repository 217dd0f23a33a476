// Package label contains the Label bounded context.
// This context describes the records that are printed as labels, the
// precedence rules for the values a label template can see, how rendered
// labels are grouped onto physical pages, and where a finished sheet goes.
package label
