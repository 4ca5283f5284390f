// Package neat provides a Go implementation of the NeuroEvolution of Augmenting Topologies (NEAT) algorithm.
//
// NEAT is a genetic algorithm for the generation of evolving artificial neural networks.
// It alters both the weighting parameters and structures of networks, attempting to find
// a balance between the fitness of evolved solutions and their diversity.
//
// This implementation follows the neat-python implementation
// (https://github.com/CodeReclaimers/neat-python) and reads its configuration files.
// All randomness comes from one seeded source owned by the Population, so two
// populations built with the same config and seed evolve identically.
//
// Basic usage:
//
//	config, err := neat.LoadConfig("path/to/config")
//	if err != nil {
//		log.Fatalf("Error loading config: %v", err)
//	}
//
//	pop, err := neat.NewPopulation(config, neat.WithSeed(42))
//	if err != nil {
//		log.Fatalf("Error creating population: %v", err)
//	}
//	pop.AddReporter(neat.NewStdOutReporter(os.Stdout, false))
//
//	winner, err := pop.Run(ctx, evalGenomes, 100)
//	if err != nil {
//		log.Fatalf("Error running evolution: %v", err)
//	}
//	if pop.State() == neat.TerminatedByThreshold {
//		fmt.Println("Solution found:", winner)
//	}
package neat
