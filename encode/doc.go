// Package encode renders object trees in formats other than the XML they
// arrive in.
//
// # Usage
//
//	// neutral projection, the basis of YAML, JSON and merge patches
//	v := encode.Project(root)
//
//	// YAML keeps schema order, JSON sorts keys
//	err := encode.YAML(w, root)
//	err = encode.JSON(w, root)
//
//	// colored outline for terminals
//	err = encode.Tree(w, root, encode.EncodeColors(encode.NewColors()), encode.Depth(3))
//
// Complex nodes project to maps from child identifier to child, with the
// node's type under TypeKey. Lists project to maps from item identifier to
// item. Integers, decimals and booleans keep their type, points become
// {lat, lon} maps and other leaves their canonical string.
package encode
