package compiler

// designSchema constrains design files. Definitions are closed, so a
// misspelled field is an error rather than being ignored.
const designSchema = `
#Name:  string & =~"^[A-Za-z_][A-Za-z0-9_]*$"
#Width: *1 | (int & >=1 & <=64)

#Port: {
	name:  #Name
	dir:   "in" | "out"
	width: #Width
}

#Wire: {
	name:  #Name
	width: #Width
}

#Part: {
	type:   "and" | "or" | "xor" | "nand" | "nor" | "xnor" | "not" | "mux" | "add" | "const" | "dff"
	name?:  string
	a?:     #Name
	b?:     #Name
	in?:    #Name
	sel?:   #Name
	d?:     #Name
	clk?:   #Name
	en?:    #Name
	rst?:   #Name
	value?: int & >=0 & <=18446744073709551615
	out?:   #Name
	cout?:  #Name
	q?:     #Name
}

#Design: {
	name:   string & !=""
	ports: [...#Port]
	wires?: [...#Wire]
	parts?: [...#Part]
}
`
