/*
Package builder turns a pipeline model (defined in the config package) into a
live graph of evaluable nodes.

The construction is a multi-phase process:

 1. Node Creation: every declaration is built through the registry, with an
    id derived from its name so that rebuilding the same file yields the same
    ids. This phase populates the graph with nodes but no edges.

 2. Linking: every connect declaration is resolved to socket indices (names
    are looked up on the built node) and applied with graph.Connect, which
    performs the membership, type and cycle checks.

 3. Manual Values: declared input values are converted to the socket kind
    and applied last, since applying them invalidates downstream nodes.

Nothing is evaluated; pulling an output is left to the caller.
*/
package builder
