// Package achievement holds the achievement domain model of the progress sync
// library.
//
// The package defines:
//
//   - Achievement: one catalog entry with its earned state
//   - Catalog: the static, client-bundled list of every achievement
//   - RemoteEntry: the three shapes the achievement service uses to describe
//     an earned achievement (NestedEntry, FlatEntry, BareID)
//   - Merge: the pure function that folds a remote payload into the catalog
//
// # Merging
//
// The server is authoritative for earned status. Merge emits every catalog
// entry in catalog order, then any server-defined extras in the order the
// server listed them:
//
//	payload, _ := achievement.DecodePayload(body)
//	result := achievement.Merge(achievement.DefaultCatalog(), payload)
//	fmt.Println(len(result.Achievements), result.TotalPoints)
//
// Total points come from the payload's totalPoints when it is numeric and are
// otherwise summed over earned entries.
//
// The package has no external dependencies.
package achievement
