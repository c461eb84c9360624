// Package pipehttp provides a three-phase middleware pipeline around a
// router-resolved handler, with a response coercer that turns whatever a
// handler or middleware returns into a well-formed HTTP response.
//
// # Overview
//
// A [Server] drives three kinds of middleware:
//
//   - server-install middleware runs once, around the server's listening
//     lifetime (installed in declaration order, unwound in reverse);
//   - request middleware runs per request, outermost first;
//   - view middleware runs per request too, but only after the [Router] has
//     resolved a [Route], and wraps the [Handler] itself.
//
// Handlers are plain functions from a request (plus route params) to any
// value:
//
//	func(ctx context.Context, r *http.Request, params Params) (any, error)
//
// Whatever they return — a string, a []byte, a struct, an [ObjectStream], an
// io.ReadCloser, nothing at all — is coerced into a [Response] by [Coerce]
// and written to the wire by [WriteResponse]. Handlers never see a
// ResponseWriter; that keeps the coercion rules (and error handling) in one
// place instead of scattered across every handler.
//
// # Minimal example
//
//	router := stdrouter.NewRouter()
//	router.HandleFunc("GET /items/{id}", func(ctx context.Context, r *http.Request, p pipehttp.Params) (any, error) {
//	    item, err := db.GetItem(p.Get("id"))
//	    if err != nil {
//	        return nil, pipehttp.NewError(pipehttp.CodeNotFound, err)
//	    }
//	    return item, nil
//	}, "get-item")
//
//	srv := pipehttp.NewServer("api", router, nil)
//	httpSrv := &http.Server{Addr: ":8080", Handler: srv}
//	go httpSrv.ListenAndServe()
//	srv.NotifyListening()
//	<-srv.Listening()
package pipehttp
