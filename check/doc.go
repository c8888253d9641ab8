// Package check contains the individual verification tiers used by contactkit.
// Email tiers implement EmailChecker and URL tiers implement URLChecker.
// These types can be used directly, but the recommended approach is to use
// the Verifier from the github.com/optimode/contactkit package, which runs
// them in order and stops at the first Invalid outcome.
package check
