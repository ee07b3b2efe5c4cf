// Package nn implements a fully connected feed-forward network over gonum
// matrices: topology planning, parameter initialization, the forward pass,
// softmax cross-entropy and backpropagation.
//
// Matrices are column-major in the sense that matters here: every example is
// one column. An input batch of m examples with n features is an [n, m]
// matrix, and the logits come back as [classes, m].
//
//	params, _ := nn.NewParameterSet(nn.Topology{784, 14, 14, 10}, nn.InitConfig{Seed: 1})
//	cost, grads, err := nn.Backward(params, x, y)
package nn
