// Package formula parses and evaluates arithmetic expressions over curve
// references. An expression like "f://5*{A}" multiplies every sample of
// the curve named A by five; references are written in braces and may
// contain any character except a closing brace.
package formula
