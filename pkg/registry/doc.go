/*
Package registry implements Croft's pack catalogue.

A pack is an immutable, versioned workload artifact identified by a unique
(name, version) pair. The registry owns registration, ownership-checked
updates and deletion, latest-version listing and search, and the bundle path
layout consumed by external artifact stores:

	packs/<name>/<version>/bundle.<format>

Version ordering compares numeric dot-segments only; pre-release and build
metadata never affect catalogue order, so 1.10.0 sorts above 1.9.0 and
1.0 equals 1.0.0.

Registration returns an opaque upload URL produced by a configurable
generator, letting deployments hand out presigned store URLs without the
registry knowing about the store.
*/
package registry
