// DriftGuard - event-driven infrastructure drift evaluation.
// One change event in, one plan verdict out.
package main

func main() {
	Execute()
}
