// Package walk provides depth-first, fd-relative filesystem traversal with
// cycle detection and find-style driving logic.
//
// This package contains the public surface of the `trawl` command, which walks
// one or more starting points in the manner of find(1): directories are
// announced before and after their contents, symbolic link handling is
// configurable, and traversal survives unreadable directories, vanished
// entries and filesystem loops.
//
// # Low-level traversal
//
// The Walker yields a stream of entries:
//
//	w, err := walk.Open([]string{"."}, walk.WalkerOptions{})
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer w.Close()
//	for {
//		ent, err := w.Next()
//		if err != nil {
//			log.Fatal(err)
//		}
//		if ent == nil {
//			break
//		}
//		fmt.Println(ent.Kind, ent.Path)
//	}
//
// # Driving a search
//
// The Runner layers depth limits, ordering, pruning and evaluation on top of
// the Walker:
//
//	opts := walk.DefaultOptions()
//	opts.MaxDepth = 3
//	opts.Evaluator = walk.EvaluatorFunc(func(v walk.Visit) walk.Decision {
//		fmt.Println(v.Path)
//		return walk.Decision{}
//	})
//	status := walk.NewRunner(opts).Run(os.Args[1:])
package walk
