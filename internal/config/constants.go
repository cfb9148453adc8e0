package config

const ConfigFileName = "dextype.yaml"

// ConfigFileNames are all recognized config file names, in lookup order.
var ConfigFileNames = []string{"dextype.yaml", "dextype.yml"}

// Inference caps
const (
	// FinalizeRoundsLimit bounds the post-inference fixup loop.
	FinalizeRoundsLimit = 1_000
	// SearchVarsLimit skips the multi-variable search on larger methods.
	SearchVarsLimit = 5_000
	// SearchCandidatesLimit caps candidate types per variable.
	SearchCandidatesLimit = 10
	// SearchIterationsLimit bounds the odometer search.
	SearchIterationsLimit = 1_000_000
	// UpdateDepthLimit bounds recursion of a single propagation attempt.
	UpdateDepthLimit = 10_000
)

// Resolver names, in the order they run.
const (
	ResolverRestoreTypeVarCasts = "restore-type-var-casts"
	ResolverInsertCasts         = "insert-casts"
	ResolverDeduceTypes         = "deduce-types"
	ResolverSplitConsts         = "split-consts"
	ResolverFixPrimitives       = "fix-primitives"
	ResolverForceImmutable      = "force-immutable"
	ResolverInsertMoves         = "insert-moves"
	ResolverSearch              = "search"
	ResolverRemoveGenerics      = "remove-generics"
)

// Resolvers lists every resolver name in execution order.
var Resolvers = []string{
	ResolverRestoreTypeVarCasts,
	ResolverInsertCasts,
	ResolverDeduceTypes,
	ResolverSplitConsts,
	ResolverFixPrimitives,
	ResolverForceImmutable,
	ResolverInsertMoves,
	ResolverSearch,
	ResolverRemoveGenerics,
}
